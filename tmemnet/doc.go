// Package tmemnet is an in-process [ttransport.Transport] implementation.
//
// A [Network] holds any number of nodes and the symmetric connections between them.
// A broadcast floods to every node reachable from its origin over current connections,
// which is the delivery a gossip overlay would eventually achieve.
//
// It is used by tests throughout the module and by the simulate command.
package tmemnet
