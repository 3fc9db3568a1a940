// Package symfile parses symbol dump files into a hashtable.Table.
//
// Dump files list libraries and the symbols they define:
//
//	foo.lib:
//	  fullpath: C:\libs\foo.lib
//	  name: foo.lib
//	  symbols:
//	  - alpha
//	  - beta
//
// A line whose trimmed text starts with "fullpath:" sets the current library
// at any indentation. An indented line starting with "-" adds its remainder
// as a symbol of the current library. Any other unindented line ends the
// current library section and other indented lines are ignored. Lines end
// at "\n", "\r" or "\r\n"; blank lines are skipped.
//
// A symbol listed by several libraries maps to their paths joined by "\n"
// in the order they were seen.
package symfile
