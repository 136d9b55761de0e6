// Package engine hosts the external template engine as a WebAssembly guest
// module and implements the gotpl.Engine boundary contract against its
// exports.
//
// The guest's contract is fixed: render_template takes two pointers to
// NUL-terminated UTF-8 buffers plus the two configuration flags and returns
// the output and error handles packed into a single u64; free_result_string
// releases one result buffer; allocate/deallocate (or malloc/free) manage the
// input buffers the host writes into guest linear memory.
package engine
