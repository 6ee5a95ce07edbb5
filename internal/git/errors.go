package git

import "errors"

// Repo errors
var (
	ErrDifferentRepo = errors.New("target folder contains a different repo")
	ErrNoParent      = errors.New("commit has no parent")
)

// Revision errors
var (
	ErrShortCommitSHA = errors.New("short commit SHA not supported")
)
