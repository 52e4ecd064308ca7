package broker

import "errors"

var (
	ErrInvalidQRCode        = errors.New("invalid or inactive QR code")
	ErrQRCodeNotFound       = errors.New("qr code not found")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrClientNotFound       = errors.New("client not found")
	ErrCaseworkerNotFound   = errors.New("caseworker not found")
	ErrActionNotFound       = errors.New("action item not found")
	ErrNotAssigned          = errors.New("client not assigned to this caseworker")
	ErrInvalidUpdate        = errors.New("invalid client update")
)
