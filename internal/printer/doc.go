// Package printer drives the label printer: raw transports, the ~HQES
// status prober, and the ZPL renderers for each label the line produces.
package printer
