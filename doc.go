/*
Package careform is a small internal web form for monthly caregiving support
reports. A caregiver fills in the report for one resident, the application
renders it as a PDF, uploads the PDF to a shared Google Drive folder and
appends one audit row to a Google Sheets worksheet.

The form is gated by a single shared password and is intended for one
operator at a time. Google access uses a service account: the spreadsheet and
the destination folder must be shared with the service-account email as
editor.
*/
package careform
