// Package edid patches display capability descriptors so that glasses are
// advertised to the kernel as a specialized (non-desktop) display.
//
// Patch embeds a vendor-specific data block carrying a fresh identity token in
// a CTA-861 extension, appending the extension when none exists, and repairs
// every checksum it touches. Parse wraps the edidparser library to extract the
// manufacturer id, monitor name and detailed timing modes; discovery uses it
// as its default parse collaborator. Validate and IdentityToken are read-only
// helpers used by the CLI.
package edid
