// Package transport implements Capsara's retrying HTTP transport policy
// (spec §4.7) and the narrow collaborator interfaces (Uploader, BlobStore,
// TokenProvider) that the REST/blob/JWT layer is specified at (spec §1, §6).
package transport
