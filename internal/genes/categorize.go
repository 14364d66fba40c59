package genes

import (
	"strings"

	"tgmdiversity/internal/model"
)

// DefaultPlayerPrefix marks game objects that belong to the player agent.
const DefaultPlayerPrefix = "Player"

// componentRules is evaluated in order; the first substring match wins.
// Composite names such as "CompositeCollider2D" on a "Grid" object rely on
// collider being checked before grid.
var componentRules = []struct {
	substring string
	category  model.ComponentCategory
}{
	{substring: "Collider", category: model.ComponentCollider},
	{substring: "Rigidbody", category: model.ComponentRigidbody},
	{substring: "Transform", category: model.ComponentTransform},
	{substring: "Grid", category: model.ComponentGrid},
}

func ComponentCategoryOf(component string) model.ComponentCategory {
	for _, rule := range componentRules {
		if strings.Contains(component, rule.substring) {
			return rule.category
		}
	}
	return model.ComponentOther
}

func GameObjectCategoryOf(gameObject, playerPrefix string) model.GameObjectCategory {
	if playerPrefix == "" {
		playerPrefix = DefaultPlayerPrefix
	}
	if strings.HasPrefix(gameObject, playerPrefix) {
		return model.GameObjectPlayer
	}
	return model.GameObjectLevel
}

func GeneGroupOf(gameObject model.GameObjectCategory, component model.ComponentCategory) string {
	return string(gameObject) + "-" + string(component)
}
