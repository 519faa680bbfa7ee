// Package platform provides the filesystem primitives the NApp trees rely
// on: directory links and permission management. On Unix systems links are
// native symlinks. On Windows without developer mode a marker file holding
// the target path stands in for the link.
package platform
