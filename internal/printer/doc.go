/*
Package printer implements the reader's inverse: textual serialization of bone values, including
the sugared quote-family and lambda-short-form syntax the reader accepts, plus the unquoted `say`
form the `say` primitive uses for human-facing output.
*/
package printer
