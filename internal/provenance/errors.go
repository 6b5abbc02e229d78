package provenance

import (
	"errors"
	"fmt"
)

// #region errors
var (
	// ErrGateValidation marks a precondition failure raised before any
	// persistence side effect.
	ErrGateValidation = errors.New("provenance gate validation")

	// ErrGatePersistence marks a failure persisting an already-validated
	// record. The caller holding a not-yet-finalized artifact must delete
	// that artifact: no artifact may exist without linked provenance.
	ErrGatePersistence = errors.New("provenance gate persistence")
)

func errGateValidationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrGateValidation, fmt.Sprintf(format, args...))
}

func errGatePersistencef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrGatePersistence, fmt.Sprintf(format, args...))
}

// #endregion errors
