// Package packaging builds and unpacks .napp packages, the xz-compressed
// tarballs the NApps server stores, and assembles the metadata sent along
// with an upload.
package packaging
