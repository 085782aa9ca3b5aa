// Package script runs user-supplied Lua code against outline data.
//
// Scripts run in a restricted gopher-lua state: only the base, table,
// string and math libraries are opened, and the loaders that reach the
// file system are removed.
//
// # Sort comparators
//
// A sort script defines a global compare function that receives two
// tables with id, headline and body fields:
//
//	function compare(a, b)
//	    return #a.headline - #b.headline
//	end
//
// A numeric result is used by sign. A boolean result is read as "a sorts
// before b", the same convention as table.sort. Raising a Lua error aborts
// the sort and leaves the outline unchanged.
package script
