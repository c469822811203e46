package main

import (
	"regexp"
	"strings"
)

const serviceAnnotationTag = "@service"

var propertiesRegexp = regexp.MustCompile(`(\w+)=(?:"([^"]*)"|([\w.*]+))`)

// ServiceAnnotation is the parsed doc comment of a constructor annotated with @service.
type ServiceAnnotation struct {
	description string
	properties  map[string]string
}

// As returns the contract the service is registered for, when it is not registered as itself.
func (a ServiceAnnotation) As() (contract string, found bool) {
	contract, found = a.properties["as"]
	return contract, found && contract != ""
}

var knownProperties = []string{"as"}

func (a ServiceAnnotation) UnknownProperties() []string {
	var unknown []string
	for key := range a.properties {
		if !contains(knownProperties, key) {
			unknown = append(unknown, key)
		}
	}
	return unknown
}

func hasServiceAnnotation(docText string) bool {
	for _, line := range strings.Split(docText, "\n") {
		if isTagLine(strings.TrimSpace(line), serviceAnnotationTag) {
			return true
		}
	}
	return false
}

func parseServiceAnnotation(docText string) ServiceAnnotation {
	var (
		descriptionLines []string
		serviceLine      string
	)
	for _, line := range strings.Split(docText, "\n") {
		line = strings.TrimSpace(line)

		if isTagLine(line, serviceAnnotationTag) {
			serviceLine = line
		} else if line != "" && !strings.HasPrefix(line, "@") {
			descriptionLines = append(descriptionLines, line)
		}
	}

	return ServiceAnnotation{
		description: strings.Join(descriptionLines, "\n"),
		properties:  parseProperties(serviceLine, serviceAnnotationTag),
	}
}

func isTagLine(line string, tag string) bool {
	if !strings.HasPrefix(line, tag) {
		return false
	}
	rest := line[len(tag):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

func parseProperties(line string, tag string) map[string]string {
	properties := make(map[string]string)

	content := strings.TrimSpace(strings.TrimPrefix(line, tag))
	if content == "" {
		return properties
	}

	for _, match := range propertiesRegexp.FindAllStringSubmatch(content, -1) {
		// match[2] is the quoted value, match[3] the bare one
		value := match[2]
		if value == "" {
			value = match[3]
		}
		properties[match[1]] = value
	}

	return properties
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
