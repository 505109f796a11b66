// Package analyzer contains the built-in accessibility analyzers.
//
// Every analyzer collects a typed snapshot of the page through one embedded
// script (scripts/*.js) and runs its checks in Go. Shared helpers such as
// cssPath and isVisible are prepended to every script at init.
//
// Core analyzers: text-contrast, keyboard, landmarks, links, forms,
// headings, skiplinks. Supplemental analyzers: images, meta-doc, dom-aria.
// The skiplinks analyzer reads the keyboard trace through Context.Prior.
package analyzer
