// Package sources resolves the latest version of an artifact from a remote
// repository and brings a local destination in line with it.
//
// Architecture:
//   - Resolver: one implementation per repository type, selected by ResolverFactory
//   - Result: what a sync did (downloaded, already up to date, or git synced)
//   - ResolutionError: a well-formed remote response held nothing usable
//
// Current implementations:
//   - maven: newest snapshot jar from maven-metadata.xml, checked against a hash sidecar
//   - git: working tree hard-reset to the tip of a remote branch
//   - github_release: asset of the latest release, checked against a Content-MD5 header
//   - jenkins_artifact: artifact of the last successful build, always downloaded
//   - papermc_api: newest build of a version, checked against the sha256 in the builds list
//   - dev_bukkit_org: latest project file, checked against an ETag header
//
// Change detection never trusts a remote digest unless both sides use the
// same algorithm and encoding, and every file is written through
// download.Materialize so a failed transfer leaves the destination untouched.
package sources
