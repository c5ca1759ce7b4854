// Package discovery locates attached glasses among the system's graphics
// outputs and resolves their display capabilities.
//
// Discoverer walks VGA controllers reported by lspci, the DRM cards and
// connectors sysfs exposes under each controller, and the EDID of every
// connector with a display attached. The first descriptor whose manufacturer
// and model match the quirks registry wins. HotplugWaiter repeats the scan on
// DRM uevents until glasses appear.
package discovery
