// Package browser drives the catalog site.
//
// Page is the narrow capability interface the rest of the program uses:
// navigate, click, fill, wait for a selector, read text, list elements and
// download. Session implements it over plain HTTP: pages are fetched with
// resty, held as goquery documents, form fields are filled in the in-memory
// document and clicking a submit control posts the enclosing form. Waiting
// for a selector re-fetches the current page until it appears.
//
// Tests of higher layers replace Page with in-memory fakes.
package browser
