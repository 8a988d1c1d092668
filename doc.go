/*
Package offsets reconciles a spreadsheet of carbon offset recipients against the
Lune API.

spreadsheet-offset-tool reads a CSV file of certificate recipients, makes sure
each distinct recipient has a client account and a published sustainability
page, places one idempotent offset order per spreadsheet row and writes the
order id and sustainability page URL back to an output CSV. Progress is
persisted after every row so an interrupted run picks up where it left off.

spreadsheet-offset-tool supports the following commands:

  - run, to reconcile a spreadsheet against the Lune API
  - version, to display the tool version
*/
package offsets
