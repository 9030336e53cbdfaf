package storage

// Provider abstracts file discovery and reading over the docs tree.
type Provider interface {
	// Find walks the root and returns the absolute path of every file
	// matching at least one include glob and no exclude glob.
	Find(include, exclude []string) ([]string, error)
	// Read returns the raw bytes of a file identified by absolute path.
	Read(path string) ([]byte, error)
	// Exists reports whether the absolute path names an existing file.
	Exists(path string) bool
	// Root returns the absolute docs root.
	Root() string
	// Rel converts an absolute path under the root to a root-relative,
	// slash-separated one. Paths outside the root are returned as-is.
	Rel(path string) string
}
