package docker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dxlander/dxlander/compose"
)

// DockerfileName is the build recipe a staged config set provides.
const DockerfileName = "Dockerfile"

// ImageChecker resolves image references during pre-flight. *Client
// implements it against a live engine; tests substitute their own.
type ImageChecker interface {
	ImageResolvable(ctx context.Context, ref string) (resolvable, conclusive bool)
}

// RunPreFlightChecks validates a staged build directory before any build is
// attempted: compose syntax, build context completeness, and pinned-image
// resolvability for services that will be provisioned. It never mutates
// files. Passed is true iff no check failed; warnings do not block.
func RunPreFlightChecks(ctx context.Context, buildDir string, provisionServices []string, images ImageChecker) *PreFlightResult {
	result := &PreFlightResult{Passed: true}

	addCheck := func(name string, status CheckStatus, message string) {
		result.Checks = append(result.Checks, PreFlightCheck{Name: name, Status: status, Message: message})
		if status == CheckStatusFailed {
			result.Passed = false
		}
	}

	composePath := filepath.Join(buildDir, ComposeFileName)
	content, err := os.ReadFile(composePath)
	if err != nil {
		addCheck("compose_syntax", CheckStatusFailed,
			fmt.Sprintf("compose file not readable: %v", err))
		return result
	}

	if err := compose.Validate(content); err != nil {
		addCheck("compose_syntax", CheckStatusFailed,
			fmt.Sprintf("compose file invalid: %v", err))
		return result
	}
	addCheck("compose_syntax", CheckStatusPassed, "compose file is valid")

	doc, err := compose.ParseDocument(content)
	if err != nil {
		// Validate accepted the file, so this should not happen
		addCheck("compose_parse", CheckStatusFailed,
			fmt.Sprintf("compose file not parseable: %v", err))
		return result
	}

	checkBuildContext(buildDir, doc, addCheck)
	checkProvisionImages(ctx, doc, provisionServices, images, addCheck)

	return result
}

// checkBuildContext verifies every service with a build directive has its
// Dockerfile present in the staged directory.
func checkBuildContext(buildDir string, doc *compose.Document, addCheck func(string, CheckStatus, string)) {
	needsBuild := false
	for _, name := range doc.ServiceNames() {
		if doc.ServiceHasBuild(name) {
			needsBuild = true
			break
		}
	}
	if !needsBuild {
		return
	}

	if _, err := os.Stat(filepath.Join(buildDir, DockerfileName)); err != nil {
		addCheck("build_context", CheckStatusFailed,
			fmt.Sprintf("%s missing from build directory", DockerfileName))
		return
	}
	addCheck("build_context", CheckStatusPassed, "build context files present")
}

// checkProvisionImages verifies pinned images of provision-mode services are
// resolvable. Services without a literal image pin (build-only, or an
// interpolated reference) are skipped rather than failed, and an unreachable
// registry downgrades to a warning.
func checkProvisionImages(
	ctx context.Context,
	doc *compose.Document,
	provisionServices []string,
	images ImageChecker,
	addCheck func(string, CheckStatus, string),
) {
	if images == nil {
		return
	}

	for _, service := range provisionServices {
		image := doc.ServiceImage(service)
		if image == "" || strings.Contains(image, "${") {
			slog.Debug("Skipping image check for service without a pinned image",
				"service", service,
				"image", image)
			continue
		}

		checkName := "image_" + service
		resolvable, conclusive := images.ImageResolvable(ctx, image)
		switch {
		case resolvable:
			addCheck(checkName, CheckStatusPassed,
				fmt.Sprintf("image %s is resolvable", image))
		case conclusive:
			addCheck(checkName, CheckStatusFailed,
				fmt.Sprintf("image %s not found locally or in its registry", image))
		default:
			addCheck(checkName, CheckStatusWarning,
				fmt.Sprintf("image %s could not be verified", image))
		}
	}
}
