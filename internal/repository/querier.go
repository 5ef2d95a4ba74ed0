package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Querier interface {
	// Clients
	CreateClient(ctx context.Context, arg CreateClientParams) (Client, error)
	GetClient(ctx context.Context, id uuid.UUID) (Client, error)
	ListClients(ctx context.Context, arg ListClientsParams) ([]Client, error)
	UpdateClient(ctx context.Context, arg UpdateClientParams) (Client, error)
	DeleteClient(ctx context.Context, id uuid.UUID) (int64, error)

	// Jobs
	CreateJob(ctx context.Context, arg CreateJobParams) (Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (Job, error)
	ListJobs(ctx context.Context, arg ListJobsParams) ([]Job, error)
	UpdateJob(ctx context.Context, arg UpdateJobParams) (Job, error)
	DeleteJob(ctx context.Context, id uuid.UUID) (int64, error)

	// Invoices
	CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (Invoice, error)
	GetInvoiceForUpdate(ctx context.Context, id uuid.UUID) (Invoice, error)
	ListInvoices(ctx context.Context, arg ListInvoicesParams) ([]Invoice, error)
	MaxInvoiceSequence(ctx context.Context, prefix string) (int64, error)
	ApplyInvoicePayment(ctx context.Context, arg ApplyInvoicePaymentParams) (Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, arg UpdateInvoiceStatusParams) (Invoice, error)
	MarkInvoicesOverdue(ctx context.Context, asOf time.Time) (int64, error)
	DeleteInvoice(ctx context.Context, id uuid.UUID) (int64, error)
	CreateInvoiceItem(ctx context.Context, arg CreateInvoiceItemParams) (InvoiceItem, error)
	ListInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceItem, error)
	CreateInvoicePayment(ctx context.Context, arg CreateInvoicePaymentParams) (InvoicePayment, error)
	ListInvoicePayments(ctx context.Context, invoiceID uuid.UUID) ([]InvoicePayment, error)

	// Profiles
	GetProfile(ctx context.Context, id string) (Profile, error)
	GetProfileBySubscriptionID(ctx context.Context, subscriptionID string) (Profile, error)
	UpsertProfileSubscription(ctx context.Context, arg UpsertProfileSubscriptionParams) (Profile, error)
	UpdateProfileSubscriptionState(ctx context.Context, arg UpdateProfileSubscriptionStateParams) (Profile, error)

	// Equipment
	CreateEquipment(ctx context.Context, arg CreateEquipmentParams) (Equipment, error)
	GetEquipment(ctx context.Context, id uuid.UUID) (Equipment, error)
	ListEquipment(ctx context.Context, status *string) ([]Equipment, error)
	UpdateEquipment(ctx context.Context, arg UpdateEquipmentParams) (Equipment, error)
	DeleteEquipment(ctx context.Context, id uuid.UUID) (int64, error)
	CreateMaintenanceRecord(ctx context.Context, arg CreateMaintenanceRecordParams) (EquipmentMaintenance, error)
	ListMaintenanceRecords(ctx context.Context, equipmentID uuid.UUID) ([]EquipmentMaintenance, error)

	// Expenses
	CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error)
	GetExpense(ctx context.Context, id uuid.UUID) (Expense, error)
	ListExpenses(ctx context.Context, arg ListExpensesParams) ([]Expense, error)
	UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (Expense, error)
	DeleteExpense(ctx context.Context, id uuid.UUID) (int64, error)
	SummarizeExpenses(ctx context.Context, arg SummarizeExpensesParams) ([]ExpenseCategoryTotal, error)

	// Email history
	CreateEmailHistory(ctx context.Context, arg CreateEmailHistoryParams) (EmailHistory, error)
	ListEmailHistory(ctx context.Context, limit int32) ([]EmailHistory, error)
	DeleteEmailHistory(ctx context.Context, id uuid.UUID) (int64, error)

	// Background jobs
	EnqueueJob(ctx context.Context, arg EnqueueJobParams) (BackgroundJob, error)
	ClaimNextJob(ctx context.Context, queue string) (BackgroundJob, error)
	CompleteJob(ctx context.Context, id uuid.UUID) error
	FailJob(ctx context.Context, arg FailJobParams) (BackgroundJob, error)
	DeleteFinishedJobs(ctx context.Context, before time.Time) (int64, error)
}

var _ Querier = (*Queries)(nil)
