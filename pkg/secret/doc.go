// Package secret persists the console's session secrets (token and session id).
//
// # Overview
//
// The console keeps exactly two values outside memory: the session token and the session id
// (uuid) returned by login. They live under keys namespaced by the product name so several
// consoles can share one backend:
//
//	keys := secret.NewKeys("v3-admin-vite")
//	keys.Token // "v3-admin-vite-token"
//	keys.UUID  // "v3-admin-vite-uuid"
//
// # Backends
//
// Store is a plain key-value contract. Absent keys read back as "" with a nil error.
//
//	secret.NewMemoryStore()                     // tests and one-shot processes
//	secret.NewFileStore("~/.config/nxadmin/session.yaml") // default for the CLI
//	secret.NewRedisStore(client, "nxadmin:", ttl) // shared between hosts
//
// FileStore also implements Watcher so a long-running console can notice a logout performed
// by another process.
//
// # Secrets
//
// Secrets wraps a Store with the keys and the operations the session layer needs:
//
//	s := secret.New(store, keys)
//	s.InitSecret(ctx, uuid, token)
//	s.HasToken(ctx)
//	s.Clear(ctx)
//
// Writes are last-writer-wins; InitSecret is not transactional.
package secret
