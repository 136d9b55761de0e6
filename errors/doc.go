// Package errors provides structured error types for the render bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The three caller-facing categories map onto the taxonomy as:
//
//	invalid input   -> Phase marshal,   Kind invalid_input
//	serialization   -> Phase serialize, Kind serialization
//	execution       -> Phase execute,   Kind execution
//
// Use the convenience constructors:
//
//	err := errors.InvalidInput(errors.PhaseMarshal, "string contains NUL byte")
//	err := errors.Serialization(cause)
//	err := errors.Execution(engineMessage)
//
// All errors implement the standard error interface and support errors.Is/As.
// Callers branch on category with the predicates IsInvalidInput,
// IsSerialization and IsExecution, or recover the engine's verbatim message
// through (*Error).Message.
package errors
