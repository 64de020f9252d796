// Package metamodel declares object types and component schemas for a
// design store and validates object structure against them.
//
// A metamodel is read-mostly: it is declared (in Go or compiled from a CUE
// file) before a store opens and does not change for the lifetime of the
// session. The store consults it at commit time, which is the single
// structural validation checkpoint in the system.
package metamodel
