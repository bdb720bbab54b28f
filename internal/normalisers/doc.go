// Package normalisers turns raw bytes into documents.
//
// Each sub-package handles one family of MIME types. The Registry picks the
// highest-priority normaliser for a document; DetectMIME maps file
// extensions to the MIME types the normalisers declare.
package normalisers
