// Package capsara implements a zero-knowledge, multi-party encrypted
// file-exchange client. A capsa ("sealed envelope") bundles one or more
// files with an optional subject, body, and structured payload, all
// encrypted under a single AES-256-GCM master key. The master key is
// wrapped once per recipient (and per delegate) with RSA-OAEP, and the
// whole package is signed with RS256 over a canonical string so tampering
// with any field is detectable without trusting the server.
//
// Use CapsaBuilder to assemble and encrypt a capsa, Client.Send to upload
// it, and Client.Decrypt / CapsaDecryptor to open one a recipient or
// delegate has access to. Capsara never transmits or stores plaintext or
// unwrapped master keys; the server this library talks to never sees
// either.
package capsara
