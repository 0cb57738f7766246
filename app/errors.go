package app

import "errors"

var (
	// ErrApplicationExists is returned by New while another application is current.
	ErrApplicationExists = errors.New("an application already exists in this process")

	// ErrObjectDestroyed is returned when attaching to or from a destroyed object.
	ErrObjectDestroyed = errors.New("object has been destroyed")

	// ErrObjectHasParent is returned when a child is already attached elsewhere.
	ErrObjectHasParent = errors.New("object already has a parent")

	// ErrObjectCycle is returned when attaching an object below itself.
	ErrObjectCycle = errors.New("object cannot be its own descendant")
)
