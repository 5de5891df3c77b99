// Package ci discovers who runs the tool when it runs inside a CI job.
package ci

import (
	"os"
	"strings"
)

// CIKind represents the type of CI.
type CIKind int

const (
	// CIUnknown indicates the CI provider could not be identified.
	CIUnknown CIKind = iota
	// CIGitHub identifies GitHub CI environments.
	CIGitHub
	// CIGitLab identifies GitLab CI environments.
	CIGitLab
	// CIBitbucket identifies Bitbucket CI environments.
	CIBitbucket
)

// LookupFunc fetches environment variables and defaults to os.Getenv.
type LookupFunc func(string) string

// String returns the human-readable string representation of a CIKind.
func (c CIKind) String() string {
	switch c {
	case CIGitHub:
		return "github"
	case CIGitLab:
		return "gitlab"
	case CIBitbucket:
		return "bitbucket"
	default:
		return "unknown"
	}
}

// DetectCIKind attempts to infer the CI provider from well-known environment variables.
func DetectCIKind() CIKind {
	return detectCIKindWithLookup(os.Getenv)
}

func detectCIKindWithLookup(lookup LookupFunc) CIKind {
	if lookup == nil {
		lookup = os.Getenv
	}

	if lookup("GITHUB_REPOSITORY") != "" || lookup("GITHUB_SHA") != "" {
		return CIGitHub
	}
	if strings.EqualFold(lookup("GITLAB_CI"), "true") || lookup("CI_PROJECT_PATH") != "" {
		return CIGitLab
	}
	if lookup("BITBUCKET_WORKSPACE") != "" || lookup("BITBUCKET_REPO_SLUG") != "" {
		return CIBitbucket
	}

	return CIUnknown
}

// Actor returns the user recorded on audit entries for a CI run, "<kind>:<login>".
// It returns "" outside CI or when the provider does not expose the triggering user.
func Actor() string {
	return actorWithLookup(os.Getenv)
}

func actorWithLookup(lookup LookupFunc) string {
	if lookup == nil {
		lookup = os.Getenv
	}

	kind := detectCIKindWithLookup(lookup)
	var login string
	switch kind {
	case CIGitHub:
		// See https://docs.github.com/en/actions/reference/workflows-and-actions/variables.
		login = lookup("GITHUB_ACTOR")
	case CIGitLab:
		login = lookup("GITLAB_USER_LOGIN")
	case CIBitbucket:
		login = lookup("BITBUCKET_STEP_TRIGGERER_UUID")
	}
	login = strings.TrimSpace(login)
	if login == "" {
		return ""
	}
	return kind.String() + ":" + login
}
