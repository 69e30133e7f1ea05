// Package ttest contains small helpers shared by tests across the module.
package ttest
