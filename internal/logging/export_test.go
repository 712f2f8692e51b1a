package logging

// NewTo exposes the writer-taking constructor to tests.
var NewTo = newTo
