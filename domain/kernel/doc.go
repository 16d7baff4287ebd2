// Package kernel holds the mining kernel catalogue: kernel inputs (argument
// templates), kernels, the derived kernel input views and the assembly of
// the selected input's command line.
package kernel
