// Package settings models the OSKAR settings tree: a flat set of
// "section/key" paths holding scalar values, built from a nested dictionary,
// patched with individual overrides, frozen once handed to the toolkit and
// finally rendered as an OSKAR INI settings file.
//
// Drivers never build dictionaries by hand. They declare a Table that maps
// each configuration field onto a settings path together with an explicit
// Encoding, so coercion rules such as "booleans become the strings true and
// false" are visible in one place.
package settings
