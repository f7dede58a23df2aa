// Package config defines the application configuration handed to every
// manager, its HCL loader and the validator that gates manager construction.
//
// An Application is decoded once, validated once and then shared by pointer
// for the rest of the process. Nothing mutates it after validation.
package config
