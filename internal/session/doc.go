// Package session drives one run of xrdisplay from start to teardown.
//
// A session holds an exclusive flock in the state directory, resets overrides
// left behind by a crashed run, finds the glasses, writes a patched EDID
// carrying a fresh identity token into the kernel override, records it in the
// override history, and starts the vendor MCU driver so head tracking reaches
// the orientation tracker. Stop undoes all of it in reverse order.
package session
