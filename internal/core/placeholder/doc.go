// Package placeholder provides pure functions for building the replacement
// map of a deployment run and substituting it into template text.
//
// Templates carry tokens of the form {{KEY}}. Substitution is plain literal
// replacement: there is no expression language, no escaping and no
// defaulting inside a template. A token whose key is not in the map is left
// as-is so that Unresolved can report it.
//
// # Usage
//
//	values := placeholder.DefaultValues()
//	values.Cluster = "tfy-euwe1-prod"
//	rendered := placeholder.Substitute(content, values.Replacements())
//	if missing := placeholder.Unresolved(rendered); len(missing) > 0 {
//	    // warn
//	}
package placeholder
