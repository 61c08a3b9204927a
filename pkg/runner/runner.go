// Package runner is the image-catalog lookup the CLI's "create-runner"
// flow uses to turn a (service, version) pair into a concrete image
// tag before handing it to pkg/runtime like any other workload image.
// It is a static table today; the lookup is structured so a remote
// catalog could back it later, but that backing store is out of scope.
package runner

import "fmt"

// Catalog maps a curated set of known services to their image
// repository; Resolve appends the requested version as the tag.
var Catalog = map[string]string{
	"vllm":        "gpustack/vllm",
	"llama-box":   "gpustack/llama-box",
	"vox-box":     "gpustack/vox-box",
	"text-embeddings-inference": "gpustack/text-embeddings-inference",
}

// Resolve looks up service in the catalog and returns "<repo>:<version>".
func Resolve(service, version string) (string, error) {
	repo, ok := Catalog[service]
	if !ok {
		return "", fmt.Errorf("unknown runner service %q", service)
	}
	if version == "" {
		version = "latest"
	}
	return fmt.Sprintf("%s:%s", repo, version), nil
}
