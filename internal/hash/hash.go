// Package hash computes the canonical content hashes spec.md §4.3
// describes: source-file-group digests, cache checksum-source digests, and
// the per-job Resolved Job Hash used to key the skip cache.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/cigen-dev/cigen/internal/gitfiles"
	"github.com/cigen-dev/cigen/internal/model"
)

// Digest is a lowercase hex-encoded sha256 sum.
type Digest string

// Job computes the Resolved Job Hash for (workflowName, job, arch):
//
//	sha256(sorted(file_path, sha256(content)) ∥ canonical_job_yaml ∥ workflow_metadata ∥ arch)
//
// Source-file enumeration uses the project's tracked file listing
// intersected with the job's source-file group; non-existent paths
// contribute nothing rather than failing.
func Job(rootDir string, cfg *model.Config, workflowName string, job *model.Job, arch string) (Digest, error) {
	tracked, err := gitfiles.ListTracked(rootDir)
	if err != nil {
		return "", err
	}

	var fileStream []byte
	if job.SourceFiles != nil {
		paths, err := ResolveSourceFiles(rootDir, cfg.SourceFiles, job.SourceFiles, tracked)
		if err != nil {
			return "", err
		}
		digests, err := DigestFiles(rootDir, paths)
		if err != nil {
			return "", err
		}
		for _, d := range digests {
			fileStream = append(fileStream, []byte(d.Path)...)
			fileStream = append(fileStream, 0)
			fileStream = append(fileStream, []byte(d.Sum)...)
			fileStream = append(fileStream, 0)
		}
	}

	canonicalJob, err := CanonicalYAML(job)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write(fileStream)
	h.Write(canonicalJob)
	h.Write([]byte(workflowName))
	h.Write([]byte(arch))
	return Digest(hex.EncodeToString(h.Sum(nil))), nil
}

// SkipCacheKey builds the skip-cache key spec.md §4.6 step 2 describes:
// job-skip-{workflow}-{job}-{arch}-{JOB_HASH}.
func SkipCacheKey(workflow, jobID, arch string, digest Digest) string {
	return fmt.Sprintf("job-skip-%s-%s-%s-%s", workflow, jobID, arch, digest)
}
