// Package collaborator runs the external programs the tool depends on
// (device listing, write benchmark, health log) and exposes their output
// as text. It knows the command lines but never interprets the output;
// parsing lives with the component that owns each contract.
//
// Every process is started in its own process group so termination
// reaches the real worker behind the privilege prefix (sudo forks it).
package collaborator
