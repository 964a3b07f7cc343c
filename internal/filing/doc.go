// Package filing holds the typed submission model persisted by the
// structured store, and converts it to and from sgml records.
//
// Typed fields cover everything the header templates know. Keys outside the
// templates are kept in the Extra records of the submission and its
// entities, so a filing loaded back from storage still renders them. Keys
// nested inside known blocks that the model does not map are reported in
// Filing.Unmapped rather than silently dropped.
package filing
