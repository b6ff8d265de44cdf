// Package tree provides utilities for working with remote folder trees.
package tree

import (
	"github.com/sharingconfigs/sharingconfigs/pkg/models"
)

// ChoicePlaceholder labels the empty leading entry returned by Choices.
const ChoicePlaceholder = "Choose a folder"

// Choice is one entry of a folder selection control.
type Choice struct {
	Value string
	Label string
	Depth int
}

// FlattenNames returns the names of all nodes in the forest, depth-first
// pre-order, keeping sibling order. Duplicate names are kept.
func FlattenNames(nodes []models.FolderNode) []string {
	names := make([]string, 0, CountNodes(nodes))
	return collectNames(nodes, names)
}

func collectNames(nodes []models.FolderNode, names []string) []string {
	for _, node := range nodes {
		names = append(names, node.Name)
		names = collectNames(node.Children, names)
	}
	return names
}

// CountNodes counts all nodes in a forest.
func CountNodes(nodes []models.FolderNode) int {
	count := 0
	for _, node := range nodes {
		count += 1 + CountNodes(node.Children)
	}
	return count
}

// Walk visits every node in pre-order. Returning false from fn skips the
// node's children.
func Walk(nodes []models.FolderNode, fn func(node models.FolderNode, depth int) bool) {
	walk(nodes, 0, fn)
}

func walk(nodes []models.FolderNode, depth int, fn func(models.FolderNode, int) bool) {
	for _, node := range nodes {
		if fn(node, depth) {
			walk(node.Children, depth+1, fn)
		}
	}
}

// FindByName returns the first node with the given name in pre-order.
func FindByName(nodes []models.FolderNode, name string) (*models.FolderNode, bool) {
	for i := range nodes {
		if nodes[i].Name == name {
			return &nodes[i], true
		}
		if found, ok := FindByName(nodes[i].Children, name); ok {
			return found, true
		}
	}
	return nil, false
}

// Choices builds the entries of a folder selection control: a placeholder
// followed by every folder in FlattenNames order.
func Choices(nodes []models.FolderNode) []Choice {
	choices := make([]Choice, 0, CountNodes(nodes)+1)
	choices = append(choices, Choice{Value: "", Label: ChoicePlaceholder})
	Walk(nodes, func(node models.FolderNode, depth int) bool {
		choices = append(choices, Choice{Value: node.Name, Label: node.Name, Depth: depth})
		return true
	})
	return choices
}

// Filter returns a copy of the forest that keeps a node when keep accepts
// it or any of its descendants. The input is not modified.
func Filter(nodes []models.FolderNode, keep func(models.FolderNode) bool) []models.FolderNode {
	result := make([]models.FolderNode, 0, len(nodes))
	for _, node := range nodes {
		children := Filter(node.Children, keep)
		if len(children) > 0 || keep(node) {
			result = append(result, models.FolderNode{Name: node.Name, Children: children})
		}
	}
	return result
}
