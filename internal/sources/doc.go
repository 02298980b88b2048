// Package sources provides the datasources that discover tool versions and
// their download URLs from upstream services.
//
// Every datasource implements Datasource and returns a partial catalog holding
// only what it discovered. Datasources never see the previous index; combining
// partial catalogs is left to the catalog merge.
//
// Current implementations:
//   - temurin: Eclipse Temurin JDK releases published on GitHub (adoptium/temurin<N>-binaries)
//   - graalvm: GraalVM CE releases published on GitHub (graalvm/graalvm-ce-builds), versioned
//     from the release file inside their Windows archive
//   - nodejs: the Node.js distribution index (nodejs.org/dist/index.json)
//   - maven: the Apache Maven 3 archive directory listing
//   - mvnd: Maven daemon releases published on GitHub (apache/maven-mvnd)
//   - gradle: the Gradle version service (services.gradle.org/versions/all)
//   - clojure: Clojure CLI tools releases published on GitHub (clojure/brew-install)
//   - gittags: any git repository whose tags map to download URLs through a template
//
// A Factory creates datasources from configuration and wraps them with
// Constrained when a version constraint is configured.
package sources
