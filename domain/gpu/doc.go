// Package gpu manages per-coin GPU overclock profiles and the per-coin
// overclock switches, and drives a hardware Driver to apply them.
//
// A profile is keyed by coin and Slot. The AllGpus slot holds the profile
// applied to every card when a coin overclocks in gpu-all mode; Gpu(i) slots
// hold per-card profiles.
package gpu
