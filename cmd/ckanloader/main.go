// Command ckanloader loads CKAN resources into the CKAN Datastore, turning
// static uploaded files into API-queryable tables.
package main

func main() {
	Execute()
}
