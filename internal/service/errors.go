package service

import (
	"github.com/dukerupert/bizznex/internal/domain"
)

// Invoice errors
var (
	ErrInvoiceAlreadyPaid   = domain.ErrInvoiceAlreadyPaid
	ErrInvoiceNotIssued     = domain.ErrInvoiceNotIssued
	ErrInvoiceNumberTaken   = domain.Errorf(domain.ECONFLICT, "", "Invoice number already exists")
	ErrJobClientMismatch    = domain.Errorf(domain.EINVALID, "", "Job belongs to a different client")
	ErrNothingToRender      = domain.Errorf(domain.EINVALID, "", "Invoice has no number to render")
	ErrNumberSpaceExhausted = domain.Errorf(domain.ECONFLICT, "", "Could not allocate an invoice number")
)

// Subscription errors
var (
	ErrMissingToken      = domain.Errorf(domain.EUNAUTHORIZED, "", "Authentication required")
	ErrInvalidToken      = domain.Errorf(domain.EUNAUTHORIZED, "", "Invalid or expired token")
	ErrNoBillingCustomer = domain.Errorf(domain.ENOTFOUND, "", "No billing account found for this user")
	ErrMissingUserID     = domain.Errorf(domain.EINVALID, "", "Checkout session is missing metadata.userId")
)

// Email errors
var (
	ErrMissingRecipient = domain.Errorf(domain.EINVALID, "", "Recipient is required")
	ErrMissingSubject   = domain.Errorf(domain.EINVALID, "", "Subject is required")
	ErrClientHasNoEmail = domain.Errorf(domain.EINVALID, "", "Client has no email address")
)
