// Package store defines how snapshot data is read, written and pruned, and
// provides the REST implementation used against the hosted backend.
//
// The postgres implementation of the same interfaces lives in package database.
package store
