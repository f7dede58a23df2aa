// Package managers contains the subsystem managers the bootstrap constructs:
// debug, UI, rendering surface, resource pool, performance monitor and
// analyzer. Their heavy lifting (codecs, GPU pipelines, widgets) lives
// elsewhere; these types own the construction and initialization contracts
// and the event traffic between subsystems.
package managers
