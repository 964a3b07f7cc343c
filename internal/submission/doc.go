// Package submission splits one feed submission file into its SGML header
// and embedded documents.
//
// Parse walks the file line by line through a small state machine. Header
// markup is collected for the sgml codec while <TEXT> bodies are held per
// document; UUENCODE bodies of binary documents are decoded. Nothing leaves
// the parser until </SUBMISSION> has been read, so a truncated file never
// reaches the OnComplete hook.
package submission
