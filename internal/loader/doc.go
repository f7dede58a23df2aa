// Package loader links the application's code units in manifest order.
//
// A Manifest is the fixed, ordered list of units the application needs before
// any of its own logic can run. Units are loaded strictly one at a time: a
// unit is only requested once its predecessor has loaded, because a unit may
// use symbols exported by the units before it. Loading stops at the first
// failure and is never retried.
//
// Go units are linked into the binary at build time and export constructors.
// Script units are JavaScript sources evaluated inside one shared runtime, so
// top-level declarations of an earlier script are visible to later ones, just
// as classic page scripts share a global scope.
package loader
