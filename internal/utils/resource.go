package utils

import (
	"fmt"
	"strings"
)

// ResourceGroupFromID extracts the resource group segment from a full ARM
// resource ID. Returns "" when the ID has no resourceGroups segment.
func ResourceGroupFromID(resourceID string) string {
	parts := strings.Split(resourceID, "/")
	for i, part := range parts {
		if strings.EqualFold(part, "resourceGroups") && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

// WorkspaceResourceID builds the ARM ID of a Log Analytics workspace.
func WorkspaceResourceID(subscriptionID, resourceGroup, workspaceName string) string {
	return fmt.Sprintf(
		"/subscriptions/%s/resourceGroups/%s/providers/Microsoft.OperationalInsights/workspaces/%s",
		subscriptionID, resourceGroup, workspaceName,
	)
}

// LogicAppResourceID builds the ARM ID of a Logic App workflow.
func LogicAppResourceID(subscriptionID, resourceGroup, name string) string {
	return fmt.Sprintf(
		"/subscriptions/%s/resourceGroups/%s/providers/Microsoft.Logic/workflows/%s",
		subscriptionID, resourceGroup, name,
	)
}
