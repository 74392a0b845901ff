// Package entity defines the raw and aggregated entity types shared by every
// layer of the aggregation engine, together with the contract external entity
// models have to satisfy.
//
// Raw entities are what a single model declares. Aggregated entities are the
// resolved projection produced after walking profiling chains. Both are closed
// sum types: the marker methods are unexported, so every consumer can switch
// over the complete set of variants.
//
// Profiling pointers (Profiling, NameFromProfiled, ...) are plain ids. They may
// point at nothing, at another entity, or back at the entity itself; cycles are
// expected input, not corruption.
package entity
