// Package dispatch indexes one unpacked feed day with a fixed pool of
// workers.
//
// The Dispatcher owns a slot table and is its only mutator. A scheduling
// tick fills idle slots in directory order and kills slots that have held a
// file past the submission timeout; a killed slot's file is dropped and its
// replacement worker takes the next file. Results from killed workers are
// recognised by a per-slot generation number and ignored.
package dispatch
