// Package vecadmin exposes index maintenance of vec tables through the
// vec_admin virtual table.
package vecadmin
