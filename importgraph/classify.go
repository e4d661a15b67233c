package importgraph

import "strings"

// pageObjectNames are filename suffixes that mark page objects, dialogs, and
// step definitions, the files worth recursing into.
var pageObjectNames = []string{
	"page.py", "dialog.py", "modal.py", "section.py", "steps.py", "step.py",
}

// pageObjectDirs are directory indicators with the same meaning.
var pageObjectDirs = []string{
	"component", "header", "footer", "sidebar", "/steps/", `\steps\`,
}

// utilityNames mark files the walker must never follow: utilities, base
// classes, drivers, clients. Following them would pull in the whole support
// layer and blow up the graph.
var utilityNames = []string{
	"utility.py", "helper.py", "base.py", "util.py", "__init__.py",
	"driver.py", "client.py",
}

// IsPageObjectFile classifies a path as a page-object or steps file.
// Positive indicators win over negative ones; anything unclassified is not
// followed.
func IsPageObjectFile(filePath string) bool {
	p := strings.ToLower(filePath)

	for _, name := range pageObjectNames {
		if strings.Contains(p, name) {
			return true
		}
	}
	for _, dir := range pageObjectDirs {
		if strings.Contains(p, dir) {
			return true
		}
	}
	for _, name := range utilityNames {
		if strings.Contains(p, name) {
			return false
		}
	}
	return false
}
