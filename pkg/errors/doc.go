// Package errors provides structured error types for better observability
// and programmatic error handling across the operator.
//
// The lifecycle controller classifies every blocking failure with one of
// three codes: ErrCodeConfiguration for unusable user input,
// ErrCodeCertificateGeneration for toolchain or store failures while
// producing certificates, and ErrCodeResourceApply for cluster rejections.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeResourceApply,
//	    "failed to apply rendered object",
//	    applyErr,
//	    map[string]any{
//	        "kind": "MutatingWebhookConfiguration",
//	        "name": appName,
//	    },
//	)
//
//	if errors.IsCode(err, errors.ErrCodeConfiguration) {
//	    // user must fix settings_yaml
//	}
package errors
