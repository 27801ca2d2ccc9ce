// Package auth verifies the three principal classes that may call the
// protection core: the external crisis partner, the compliance/admin
// surface, and the capture-gate service.
//
// Each class has its own signing key and its own audience, and each
// verifier mints its own unexported-constructor principal type. Family
// dashboard credentials are issued elsewhere under a different key and
// cannot validate against any verifier here; the separation is
// structural, not a role claim on a shared token.
package auth
