// Package site holds the catalog targets the prober knows how to enumerate
// and the registry that resolves them by name.
package site
