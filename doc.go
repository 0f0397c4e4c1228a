// Package strongbox encrypts files and directory trees in place with a
// password, producing self-contained containers that also hide the original
// filename.
//
// # Overview
//
// The package is layered:
//
//   - Engine encrypts one file into a container and back (Transformer).
//   - Transactor commits Engine output through a scratch file so a crash or a
//     locked file never leaves the user without one complete copy (Committer).
//   - Runner expands a path into files, reports progress and collects a
//     per-file Report.
//
// # Container Format
//
// All integers are little-endian:
//
//	salt[16] | filenameNonce[12] | filenameTag[16] | filenameLen(i32) | encFilename
//	bodyNonce[12]
//	repeat { chunkLen(i32) | ciphertext | tag[16] } until chunkLen == 0
//
// The key is PBKDF2-HMAC-SHA-256 over the password and the per-file salt,
// 100,000 rounds, 32 bytes. Chunk i uses the nonce
// bodyNonce[0:4] || bodyNonce[4:12] XOR le64(i) and le64(i) as associated
// data, so chunks cannot be reordered, dropped from the middle or moved
// between files without detection. The zero-length terminator makes
// truncation detectable.
//
// # Cipher Suites
//
//   - AES-256-GCM (default, and the only suite other implementations of the
//     format read)
//   - ChaCha20-Poly1305
//
// The suite is not recorded in the container; both sides must agree.
//
// # Filename Policy
//
// Settings.Format selects the on-disk name of an encrypted file:
//
//   - FormatKeepOriginal keeps the name
//   - FormatFullEncrypt uses hex(SHA-256(name || password))
//   - FormatNewExtension uses the same hash followed by Settings.Extension
//
// The hashed names are deterministic, so encrypting the same file twice with
// the same password lands on the same name. The original name is always
// stored encrypted inside the container and restored on decryption.
//
// # Basic Usage
//
//	runner, err := strongbox.NewBatch(nil, strongbox.WithProgress(func(p strongbox.Progress) {
//	    fmt.Printf("%5.1f%% %s\n", p.Percent, p.CurrentFile)
//	}))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := runner.Encrypt(ctx, "/home/me/private", []byte(password), strongbox.DefaultSettings())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(report.Message)
//
// # Busy Files
//
// When the source cannot be removed, or the final rename is blocked, because
// another process holds the file, the commit stops and the Result carries a
// BusyError naming the path where the processed data now lives. These are
// warnings, not failures: no data is lost.
//
// # Error Handling
//
// Errors are structured (ValidationError, IOError, CorruptionError,
// AuthenticationError, EncryptionError, BusyError) and wrap sentinel values
// such as ErrAuthFailed and ErrMalformedContainer. KindOf classifies any error
// returned by the package:
//
//	if strongbox.KindOf(err) == strongbox.KindAuthFailure {
//	    // wrong password or damaged file
//	}
//
// # Security Considerations
//
// Protected against:
//   - reading file contents or names without the password
//   - tampering, truncation and chunk reordering
//
// Not protected against:
//   - file size leakage (ciphertext length equals plaintext length)
//   - dictionary attacks on weak passwords beyond the PBKDF2 cost
//   - memory inspection while a file is being processed
package strongbox
