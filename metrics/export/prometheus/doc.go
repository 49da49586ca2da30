// Package prometheus renders storageless metrics in the Prometheus text
// exposition format without depending on the Prometheus client library.
//
// Counter and histogram names come from internaldefs so they match the OTel
// exporter.
package prometheus
