package config

import (
	"errors"
	"fmt"

	"ckan-cloud-operator/internal/cluster"
)

// Sentinel errors for config store operations.
var (
	// ErrRequiredValueMissing indicates a required key or object is absent.
	ErrRequiredValueMissing = errors.New("required value missing")

	// ErrInvalidArguments indicates mutually exclusive parameters were both or
	// neither supplied.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrNotFound indicates the config object does not exist. It also matches
	// cluster.ErrNotFound.
	ErrNotFound = fmt.Errorf("config %w", cluster.ErrNotFound)

	// ErrPrefixLocked indicates an attempt to change the installation's label
	// prefix without forcing it.
	ErrPrefixLocked = errors.New("label prefix already set")
)
