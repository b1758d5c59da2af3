// Package environ renders the environment a package sets up when used.
//
// Values may reference {root}, {name} and {version}. Prepend and append join
// with the platform path list separator.
package environ
