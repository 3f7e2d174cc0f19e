// Package main provides the entry point for the Robson Insights service.
// It initializes and runs a web server using the Fiber framework that lets
// clinical teams record delivery entries under the Robson classification,
// manage group membership through invitations, and produce quarterly
// reports. The application uses gorm for data persistence.
package main
