// Package speech synthesizes dialogue audio through an external voice
// service. It detects the script language, assigns one voice per speaker
// slot, runs synthesis with bounded concurrency, and measures each track's
// duration for downstream clip assembly.
package speech
