/*
The deploy package runs the deployment pipeline. A run is a straight-line
sequence of three steps:

1) Sync (optional) -- rebase the deploy branch onto upstream and force-push
   it to the fork remote.
2) Copy -- install the manifest's files from the source tree into the
   destination tree, overwriting what's there.
3) Restart -- restart the service and show its status.

Each step fully completes before the next begins, and the first failure
aborts the run. Files copied before a failure stay in place; partial
deployments are an accepted risk. The status shown after the restart is for
human inspection only and never gates the run's outcome.
*/
package deploy
