// Package contentstream parses PDF content streams into operator
// sequences. Every operation and operand carries its byte range in the
// source payload, so string operands can be rewritten in place.
package contentstream
