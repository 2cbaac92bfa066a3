package db

import "fmt"

var (
	ErrNotFound      = fmt.Errorf("not found")
	ErrInvalidData   = fmt.Errorf("invalid data provided")
	ErrAlreadyExists = fmt.Errorf("already exists")
	ErrSoldOut       = fmt.Errorf("no tickets left")

	ErrGetUser         = fmt.Errorf("error getting user")
	ErrStoreUser       = fmt.Errorf("error storing user")
	ErrDelUser         = fmt.Errorf("error deleting user")
	ErrPrepareDocument = fmt.Errorf("error preparing update document")
)
