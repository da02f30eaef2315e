package ulsdk

// Version is the SDK release version, sent in the User-Agent of every
// request.
const Version = "1.4.0"
